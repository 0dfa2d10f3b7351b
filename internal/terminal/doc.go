// Package terminal runs interactive shell sessions for remote clients.
//
// The package has three layers:
//
//   - ShellFor maps a target platform to the shell command, arguments and
//     environment used for new sessions.
//   - Spawner implementations start one OS process per session and report
//     its output and exit through callbacks. PipeSpawner connects the shell
//     over plain pipes; PTYSpawner allocates a pseudo-terminal so resize
//     requests take effect.
//   - Registry maps client-chosen session ids to live processes for a single
//     connection and turns process activity into Emitter calls.
//
// A Registry belongs to exactly one client connection. Session ids are only
// unique inside that connection, so registries are never shared or keyed
// globally. Closing the connection must call DestroyAll.
//
// Over pipes the shell has no controlling terminal: line editing, job
// control and SIGWINCH do not exist, and Resize is recorded but not applied.
package terminal
