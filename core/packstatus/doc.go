// Package packstatus keeps the latest cycle of every pack in memory. The store
// is a metrics sink fed by the cycle collector and read by the status API.
package packstatus
