// Package commands defines the cpsdct CLI.
//
// Commands
//
//   - fetch     Download the index page and every linked archive and layout
//   - extract   Unpack downloaded archives into the work directory
//   - build     Generate one infix dictionary per layout in the work directory
//   - run       fetch, extract and build in one go
//   - parse     Parse a single layout file and print its dictionary
//   - serve     Start the web UI
//
// # Implementation
//
// The root command resolves configuration (.env, environment, then flags),
// builds the logger and the pipeline before any subcommand runs. The SQLite
// catalog is opened only by the commands that record or read runs.
package commands
