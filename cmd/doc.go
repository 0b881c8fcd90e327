// Package cmd implements the command-line interface for mail-cli.
//
// This package provides the following commands:
//   - auth: Authenticate a Google account and cache it locally
//   - doctor: Check auth, token, and database health
//   - sync: Pull recent mail from the provider into the local cache
//   - ls, show: List and display cached messages by local ID
//   - tag: List tags and add/remove labels on messages
//   - archive, delete: Relay message mutations to the provider
//   - event: List, show, create, update, and delete calendar events
//   - version: Display version information
//
// Commands reference records by their local surrogate IDs; the listing
// commands perform the sync that assigns them.
package cmd
