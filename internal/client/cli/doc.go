// Package cli provides the interactive trackvault command-line client.
//
// It wires configuration and the HTTP API client into a small REPL:
//
//	login                log in (prompts for user name and password)
//	list | l             list your tracks with their signed URLs
//	upload <path>        upload a local audio file
//	youtube <url>        import the audio of a YouTube video
//	delete <name>        delete a track by name
//	logout               forget the session
//	help                 show the commands
//	exit | quit          leave
//
// The REPL is started via App.Run(ctx), which blocks until the user exits or
// the input ends.
package cli
