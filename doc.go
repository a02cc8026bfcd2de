/*
Package funil drives a WhatsApp sales funnel for FGTS birthday-withdrawal
anticipation and payroll loans.

A Digisac webhook delivers each user reply. funil keeps one session per
contact, walks it through a fixed set of dialogue states, compares the offers
of two balance providers (Paraná and Facta) and submits the chosen proposal to
Newcorban, returning the formalization link to the user.

# Layout

  - pkg/domain: sessions, states, offers and the error taxonomy.
  - pkg/ports: the interfaces adapters implement (store, messenger, locker).
  - pkg/session: the locked read-act-write cycle around a store.
  - pkg/adapters: Redis, in-memory, file, Digisac, HTTP and MCP implementations.
  - pkg/persistence: store middleware (fallback, audit) and codecs (JSON, AES-GCM).
  - internal/dialogue: the transition table and the message copy.
  - internal/rates: the cross-provider offer comparison.
  - internal/proposal: the submission pipeline with re-authentication.
  - internal/providers: HTTP clients for every back-end.

# Running

	funil serve --env .env
	funil simulate 529.982.247-25
	funil chat --name Ana
	funil session ls
	funil graph --contact <id>
	funil mcp
*/
package funil
