// Package plugins holds the plugins shipped with envelope: context
// extension, API key authentication, operation logging and error masking.
package plugins
