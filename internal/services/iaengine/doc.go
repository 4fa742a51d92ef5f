// Package iaengine talks to the generation engine's metadata endpoint
// (GET <base>/ia/meta) and validates the campaign taxonomy it returns.
package iaengine
