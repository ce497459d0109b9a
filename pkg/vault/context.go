package vault

import "context"

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Key is the context key under which the active cipher travels. The db
// package attaches the cipher to the gorm session context so that model
// hooks can encrypt and decrypt without plumbing the cipher through every
// store call.
const Key ContextKey = "cipher"

// WithCipher stores the cipher in the context.
func WithCipher(ctx context.Context, cipher SymmetricCipher) context.Context {
	return context.WithValue(ctx, Key, cipher)
}

// FromContext retrieves the cipher from the context.
func FromContext(ctx context.Context) (SymmetricCipher, bool) {
	cipher, ok := ctx.Value(Key).(SymmetricCipher)
	return cipher, ok
}
