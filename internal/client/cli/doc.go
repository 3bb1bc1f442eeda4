// Package cli provides the journal command-line client.
//
// It wires configuration, local state, the journal database, the session
// and the recording pipeline behind a cobra command tree. Every command
// opens the journal, runs and closes it again; 'journal shell' keeps it
// open and reads commands line by line.
//
// Key features:
//   - Register / Login / Logout, password reset
//   - Record entries from the microphone (ffmpeg), a file or stdin
//   - List / Show / Search / Delete / Export entries
//   - Tags, recording settings and the transcription API key
//
// The entry list is cached locally so it survives restarts and a missing
// journal database.
package cli
