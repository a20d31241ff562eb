package component

// TTL destroys the entity after Frames more ticks.
type TTL struct {
	Frames int
}

var TTLComponent = NewNamedComponent[TTL]("ttl")

// PendingDeath marks an entity whose health crossed zero and is waiting
// for the death pass.
type PendingDeath struct {
	Cause string
	// Scheduled is set once the death pass has queued the despawn.
	Scheduled bool
}

var PendingDeathComponent = NewNamedComponent[PendingDeath]("pending_death")

// SpawnPoint is where a player-tagged entity respawns after dying.
type SpawnPoint struct {
	X float64
	Y float64
}

var SpawnPointComponent = NewNamedComponent[SpawnPoint]("spawn_point")
