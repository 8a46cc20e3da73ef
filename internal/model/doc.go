// Package model defines the document shapes this service persists:
// positions, orders, alerts, and run metadata. Each type converts itself
// to a store payload; field names are the stored schema.
package model
