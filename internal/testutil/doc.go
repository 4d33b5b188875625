// Package testutil contains site fixtures and file assertions shared by tests.
package testutil
