package batch

// TokenCounter measures item size in model tokens.
type TokenCounter interface {
	TokenCount(s string) int
}
