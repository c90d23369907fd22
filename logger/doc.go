// Package logger provides structured logging for the voicediag service,
// built on zerolog. Components obtain a tagged logger via WithComponent
// so every pipeline stage is attributable in the output.
package logger
