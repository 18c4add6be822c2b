package rail

// Member is a vehicle occupying a rail bucket. The cache only ever calls
// back into a member to ask whether it has been unloaded; everything else
// about vehicle lifecycle lives outside this package.
type Member interface {
	Unloaded() bool
}
