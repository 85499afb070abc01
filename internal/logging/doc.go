// Package logging builds the run logger: a human-readable console stream and
// an append-only JSON log file per run, both fed from one zap core and
// exposed to the rest of the program as a logr.Logger.
package logging
