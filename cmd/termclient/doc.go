// Command termclient is a multi-tab terminal client for the terminal server.
//
// Each tab owns one shell session on the server, multiplexed over a single
// WebSocket. With --offline the tabs run a small built-in command set
// instead. Defaults are read from an optional YAML profile
// (~/.config/termclient/profile.yaml):
//
//	server: ws://localhost:8000/terminal
//	cwd: /srv/app
//	local:
//	  user: guest
//	  files: [README.md, src/]
package main
