package certs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
)

// SignPKCS1v15 computes an RSA PKCS#1 v1.5 signature over data using the
// digest identified by h.
func SignPKCS1v15(key *rsa.PrivateKey, h HashAlgorithm, data []byte) ([]byte, error) {
	ch, err := h.CryptoHash()
	if err != nil {
		return nil, err
	}
	digest, err := h.Sum(data)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPKCS1v15(nil, key, ch, digest)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// VerifyPKCS1v15 checks an RSA PKCS#1 v1.5 signature over data.
func VerifyPKCS1v15(pub *rsa.PublicKey, h HashAlgorithm, data, sig []byte) error {
	ch, err := h.CryptoHash()
	if err != nil {
		return err
	}
	digest, err := h.Sum(data)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, ch, digest, sig); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// WrapKeyPKCS1v15 encrypts a symmetric key to the recipient's RSA public key.
func WrapKeyPKCS1v15(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, key)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	return wrapped, nil
}

// UnwrapKeyPKCS1v15 recovers a symmetric key wrapped to the recipient.
func UnwrapKeyPKCS1v15(priv *rsa.PrivateKey, blob []byte) ([]byte, error) {
	key, err := rsa.DecryptPKCS1v15(nil, priv, blob)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	return key, nil
}

// EncryptAESCBC encrypts data, which must already be padded to a whole
// number of blocks, with AES in CBC mode.
func EncryptAESCBC(key, iv, data []byte) ([]byte, error) {
	block, err := newAESBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, ErrBadCiphertext
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// DecryptAESCBC decrypts AES-CBC data. Padding removal is the caller's
// concern; the pad count travels in the container header, not in the bytes.
func DecryptAESCBC(key, iv, data []byte) ([]byte, error) {
	block, err := newAESBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, ErrBadCiphertext
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

func newAESBlock(key, iv []byte) (cipher.Block, error) {
	if len(key) != 16 || len(iv) != aes.BlockSize {
		return nil, ErrBadKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrBadKeySize
	}
	return block, nil
}
