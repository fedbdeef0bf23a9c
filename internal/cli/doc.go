// Package cli defines the modguard command surface, validates user input,
// and handles process-level concerns like exit codes. It translates CLI
// flags into audit options and renders the resulting report.
package cli
