/*
Package domain contains the core models of the funnel.

It defines the fixed dialogue states, the persisted Session of each contact,
offers, outbound messages and the error taxonomy shared by providers, the
dialogue engine and the proposal pipeline. The package is free of I/O.

# Key Entities

  - State: one of the fixed funnel positions.
  - Session: the per-contact snapshot owned by the session store.
  - Offer: a priced anticipation from a balance provider.
  - OutboundMessage: text, reply buttons or media for the messaging platform.
*/
package domain
