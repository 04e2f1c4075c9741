// Package automation relays domain events to the external n8n automation
// engine.
//
// Each event type maps to an n8n webhook. Before triggering, the relay
// claims the (event id, webhook) pair in a delivery Ledger so that an
// event redelivered by the bus never triggers the same webhook twice once
// it has succeeded. Failed deliveries are released for retry.
package automation
