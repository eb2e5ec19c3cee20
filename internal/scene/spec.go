package scene

// Spec documents the JSON scene specification read by ParseSpec. It is only
// used to publish a JSON schema: ParseSpec walks the document itself to keep
// the order of the keys.
type Spec struct {
	Train   int                     `json:"train,omitempty" jsonschema:"title=Train scenes,description=Number of train scenes to render once each.,minimum=0"`
	Sandbox int                     `json:"sandbox,omitempty" jsonschema:"title=Sandbox scenes,description=Number of debug scenes with two colliding spheres.,minimum=0"`
	Test    map[string]Visibilities `json:"test,omitempty" jsonschema:"title=Test scenes,description=Test scenes per scenario (O1 O2 or O3). Each is rendered four times then shuffled."`
	Dev     map[string]Visibilities `json:"dev,omitempty" jsonschema:"title=Dev scenes,description=Same layout as test. Kept apart as a development set."`
}

// Visibilities maps a visibility key to its movement counts. A key holding
// "occluded" hides the magic events behind occluders; a key holding
// "visible" leaves them in view.
type Visibilities map[string]MovementCounts

// MovementCounts is the number of scenes per movement of the magic object.
type MovementCounts struct {
	Static   int `json:"static,omitempty" jsonschema:"title=Static,description=The magic object stays still.,minimum=0"`
	Dynamic1 int `json:"dynamic_1,omitempty" jsonschema:"title=Dynamic 1,description=The magic object crosses the scene with one magic event.,minimum=0"`
	Dynamic2 int `json:"dynamic_2,omitempty" jsonschema:"title=Dynamic 2,description=The magic object crosses the scene with two magic events.,minimum=0"`
}
