/*
Package network holds the messaging contract between trustees.

A Channel groups one Connector per peer. BroadcastAndReceive sends a message
to every peer, waits for exactly one message from each of them, adds the own
message and returns everything sorted by sender id, so that all trustees
consume the replies in the same order no matter how they arrived.

Connectors carry bytes: messages are marshalled with onet's network encoding
and must be registered with network.RegisterMessage by the package defining
them. LocalConnector is an in-process mailbox used for simulations and tests.
StreamConnector frames messages over any net.Conn, for trustees running in
different processes. Other transports only need to keep per-direction FIFO
order.
*/
package network
