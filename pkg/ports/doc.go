/*
Package ports defines the driven ports (interfaces) of the funnel.

These interfaces decouple the dialogue engine from storage and messaging
implementations, so the same engine runs behind the webhook, the local chat
console and the tests.

# Key Interfaces

  - SessionStore: persists the Session of each contact.
  - DistributedLocker: serializes cycles of one contact across replicas.
  - Messenger: delivers outbound messages and agent transfers.
  - ContactDirectory: contact metadata and ticket status.
*/
package ports
