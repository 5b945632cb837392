// Package application provides application initialization and dependency wiring.
// It encapsulates the batch load run used by the command-line tool and the
// creation of storage, handlers, routers, and HTTP server instances for the
// service mode, keeping the main package focused on CLI parsing and
// orchestration.
package application
