package app

// Empty-state copy shared by every host.
const (
	EmptyFeedTitle    = "You're all caught up!"
	EmptyFeedMessage  = "Check back later for more recipes"
	EmptySavedTitle   = "No saved recipes yet"
	EmptySavedMessage = "Start swiping to save your favorites!"
)
