// Command studio is the operator CLI for the content studio. It runs the
// daemon, inspects batches and the metadata catalog through the daemon API,
// and offers local utilities (URL materialization, export, config) that
// talk to the bucket directly.
package main
