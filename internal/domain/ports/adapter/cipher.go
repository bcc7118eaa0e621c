package adapter

// SecretCipher encrypts sensitive payloads (broker account passwords) before
// they reach storage.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
