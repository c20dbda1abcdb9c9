// Package lifecycle implements the validated finite-state machine that
// gates command execution on a commandable component.
//
// A component is always in exactly one State. Each lifecycle command names
// a single target state, and a static transition matrix decides whether
// the move from the current state to that target is legal. Commands are
// routed through a Context to the Handler registered for the current
// state; states that do not define a command reject it, they never
// silently accept it.
//
// The INITIAL and FINAL states are aliases: they share the STANDBY and
// ENABLED handler instances respectively. This mirrors the original
// protocol definition and is preserved deliberately.
package lifecycle
