/*
Package session implements session management and persistence orchestration.

Every inbound event runs one Cycle: lock the contact, read its Session, let
the dialogue act on it, write it back. Cycles on the same contact are
serialized by an in-process mutex and, across replicas, by an optional
distributed lock. Cycles on different contacts never block each other.
*/
package session
