// Package app contains the command line application around mathscope. It
// loads a scene, evaluates it, optionally deletes expressions to show
// incremental re-evaluation, and reports the results, decoupled from the
// CLI flag handling that produces its Config.
package app
