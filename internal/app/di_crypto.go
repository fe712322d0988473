package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/filevault/internal/crypto/domain"
	cryptoService "github.com/allisson/filevault/internal/crypto/service"
)

// KMSService returns the KMS service used to unwrap a wrapped root secret.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// KeyProvider returns the provider of the content encryption key.
func (c *Container) KeyProvider() (cryptoService.KeyProvider, error) {
	var err error
	c.keyProviderInit.Do(func() {
		c.keyProvider, err = c.initKeyProvider()
		if err != nil {
			c.initErrors["keyProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyProvider"]; exists {
		return nil, storedErr
	}
	return c.keyProvider, nil
}

// StreamCipher returns the streaming file cipher.
func (c *Container) StreamCipher() (cryptoService.StreamCipher, error) {
	var err error
	c.streamCipherInit.Do(func() {
		c.streamCipher, err = c.initStreamCipher()
		if err != nil {
			c.initErrors["streamCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["streamCipher"]; exists {
		return nil, storedErr
	}
	return c.streamCipher, nil
}

// IntegrityVerifier returns the digest verifier.
func (c *Container) IntegrityVerifier() cryptoService.IntegrityVerifier {
	c.integrityVerifierInit.Do(func() {
		c.integrityVerifier = cryptoService.NewIntegrityVerifier()
	})
	return c.integrityVerifier
}

func (c *Container) initKeyProvider() (cryptoService.KeyProvider, error) {
	secret, err := cryptoService.LoadRootSecret(
		c.ctx,
		c.KMSService(),
		c.config.RootSecret,
		c.config.RootSecretCiphertext,
		c.config.KMSKeyURI,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load root secret: %w", err)
	}
	defer cryptoDomain.Zero(secret)

	keyProvider, err := cryptoService.NewDerivedKeyProvider(secret)
	if err != nil {
		return nil, err
	}
	return keyProvider, nil
}

func (c *Container) initStreamCipher() (cryptoService.StreamCipher, error) {
	keyProvider, err := c.KeyProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get key provider for stream cipher: %w", err)
	}
	return cryptoService.NewStreamCipher(keyProvider)
}
