// Command soapbox manages the episode catalog behind the program's voice
// skill: it syncs episodes from the feed into the blob store, inspects the
// catalog, and runs the background sync daemon.
package main
