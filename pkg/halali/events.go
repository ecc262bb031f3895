package halali

// Notifications emitted on Game.Events whenever an operation commits,
// whether it was issued locally, by the computer opponent or by a
// network peer. The UI replays them visually; the engine state is
// already updated by the time they are delivered.

type RevealEvent struct {
	Loc Loc
}

type MoveEvent struct {
	From, To Loc
}

type RescueEvent struct {
	Loc Loc
}
