// Package crypto holds the process encryption key and the token format used
// to seal small payloads with it.
package crypto
