package pokeapi

type apiResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type pokemonResponse struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Types   []typeSlot      `json:"types"`
	Stats   []baseStat      `json:"stats"`
	Moves   []moveSlot      `json:"moves"`
	Sprites spriteResources `json:"sprites"`
}

type typeSlot struct {
	Slot int         `json:"slot"`
	Type apiResource `json:"type"`
}

type baseStat struct {
	BaseStat int         `json:"base_stat"`
	Stat     apiResource `json:"stat"`
}

type moveSlot struct {
	Move apiResource `json:"move"`
}

type spriteResources struct {
	FrontDefault string `json:"front_default"`
	BackDefault  string `json:"back_default"`
}

// Power and accuracy are null for some moves
type moveResponse struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Power       *int        `json:"power"`
	PP          int         `json:"pp"`
	Accuracy    *int        `json:"accuracy"`
	Type        apiResource `json:"type"`
	DamageClass apiResource `json:"damage_class"`
}
