// Package chatclient implements the conversational client runtime for a
// retrieval-augmented-generation backend.
//
// Ownership model:
//   - The ConversationStore is the single writer of conversation state; it is
//     mutated only from the Client's send lifecycle and the explicit clear
//     action.
//   - The SessionGuard owns the bearer token and fails closed: without a live
//     token, Send never touches the network and surfaces a local message.
//   - Hosts observe effects through the store; Send itself returns nothing.
//
// Recommended setup:
//   - Build a ConversationStore over an injected kvstore.Store and call
//     Restore once at mount.
//   - Build a Client with NewClient and dispatch Send from the host's event
//     loop; poll Busy / the store for rendering.
package chatclient
