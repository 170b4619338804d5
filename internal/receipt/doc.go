// Package receipt renders completed orders for display or export.
package receipt
