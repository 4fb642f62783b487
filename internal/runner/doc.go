// Package runner launches the simulator against pending netlists.
//
// [Scan] finds netlists without a .raw result; [Pool] runs them with a
// bounded number of live processes, a staggered launch and a per-run
// timeout. A run that is killed on timeout but already wrote its .raw file
// counts as completed: LTspice in interactive mode never exits on its own.
//
// # Thread Safety
//
// A Pool may be shared, but Observer callbacks arrive from several
// goroutines and must synchronise themselves.
package runner
