package usecase

// SecretSealer encrypts values stored at rest (processor tokens, last issued secrets).
type SecretSealer interface {
	Encrypt(plaintext string) (ciphertext, iv string, err error)
	Decrypt(ciphertext, iv string) (plaintext string, err error)
}
