// Command wpenv bootstraps a local WordPress development environment.
//
// # Overview
//
// wpenv turns an empty directory into a running docker compose stack:
//   - downloads the project template and activates .env from .env.example
//   - generates WordPress keys and salts into .env.secrets
//   - validates .env and prompts until it is correct
//   - builds images, joins the shared network, starts containers, runs setup
//   - trusts the local certificate when NGINX_ENABLE_SSL=true
//
// Running it again in a provisioned directory skips the download and keeps
// the existing secrets.
//
// # Installation
//
//	go install github.com/blackwell-systems/wpenv/cmd/wpenv@latest
//
// # Quick Start
//
//	mkdir my-site && cd my-site
//	wpenv
//	wpenv status
//	wpenv stop
//
// # Settings
//
// Tool settings resolve from flags, WPENV_* environment variables,
// ~/.wpenv/config.yaml and built-in defaults, in that order. Run
// `wpenv config` to see the result.
package main
