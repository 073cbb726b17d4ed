// Package logger provides structured logging for the pipeline, built on
// zerolog. Components obtain a tagged sub-logger via WithComponent and log
// with optional field maps.
package logger
