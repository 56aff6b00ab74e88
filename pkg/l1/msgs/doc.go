// Package msgs provides L1 protocol support and the generic message schemas.
package msgs

// L1 protocol is communicated between L1 controller and L2 clients,
// and uses hardware-agnostic primitives. Every packet is a Typed
// envelope: the type ID selects the schema of the embedded message,
// the sequence correlates a command with its reply.
//
// Producer: L1 controller
// Consumer: L2 clients
