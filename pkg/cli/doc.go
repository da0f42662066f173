// Package cli provides shared configuration handling for the voxlink CLI.
//
// Configuration lives in ~/.voxlink/config.yaml and supports named
// contexts, so different environments (API keys, models, voices) can be
// switched with one command.
package cli
