package packet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"

	"github.com/pkg/errors"
)

const sharedSecretLen = 16

// Encrypter is the symmetric transform applied to all wire traffic.
// Exactly one encrypter is active on a connection at any time.
type Encrypter interface {
	Encrypt(data []byte) []byte
	Decrypt(data []byte) []byte
}

// NoneEncrypter passes traffic through unchanged. Every connection starts
// with it until encryption is negotiated.
type NoneEncrypter struct{}

func NewNoneEncrypter() NoneEncrypter {
	return NoneEncrypter{}
}

func (NoneEncrypter) Encrypt(data []byte) []byte { return data }
func (NoneEncrypter) Decrypt(data []byte) []byte { return data }

// CFB8Encrypter is AES in cipher feedback mode with 8 bit feedback, keyed
// and initialized with the negotiated shared secret. Send and receive keep
// independent keystream positions; neither may ever be reset mid-session.
type CFB8Encrypter struct {
	block cipher.Block
	encIV []byte
	decIV []byte
}

func NewCFB8Encrypter(secret []byte) (*CFB8Encrypter, error) {
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, errors.Wrap(err, "mcnet: create stream cipher")
	}
	c := &CFB8Encrypter{
		block: block,
		encIV: make([]byte, block.BlockSize()),
		decIV: make([]byte, block.BlockSize()),
	}
	copy(c.encIV, secret)
	copy(c.decIV, secret)
	return c, nil
}

func (c *CFB8Encrypter) Encrypt(data []byte) []byte {
	bs := c.block.BlockSize()
	tmp := make([]byte, bs)
	out := make([]byte, len(data))
	for i, p := range data {
		c.block.Encrypt(tmp, c.encIV)
		ct := p ^ tmp[0]
		out[i] = ct
		copy(c.encIV, c.encIV[1:])
		c.encIV[bs-1] = ct
	}
	return out
}

func (c *CFB8Encrypter) Decrypt(data []byte) []byte {
	bs := c.block.BlockSize()
	tmp := make([]byte, bs)
	out := make([]byte, len(data))
	for i, ct := range data {
		c.block.Encrypt(tmp, c.decIV)
		out[i] = ct ^ tmp[0]
		copy(c.decIV, c.decIV[1:])
		c.decIV[bs-1] = ct
	}
	return out
}

// HandshakeResponse carries the one-shot asymmetric payload answering an
// encryption request: the shared secret and the verify token, each
// encrypted under the server's public key.
type HandshakeResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
}

// GenSharedSecret produces a fresh 16 byte stream cipher key.
func GenSharedSecret() ([]byte, error) {
	b := make([]byte, sharedSecretLen)
	if _, err := rand.Read(b); err != nil {
		return nil, errors.Wrap(err, "mcnet: generate shared secret")
	}
	return b, nil
}

// NewCFB8FromRequest builds the stream cipher for a server-issued
// encryption request. It generates the shared secret, keys the cipher with
// it and encrypts both the secret and the verify token under the server's
// public key (DER encoded). The returned secret is needed once more for
// the session join call; the response payload goes back to the server
// before the cipher is swapped in.
func NewCFB8FromRequest(publicKeyDER, verifyToken []byte) (*CFB8Encrypter, []byte, *HandshakeResponse, error) {
	pub, err := x509.ParsePKIXPublicKey(publicKeyDER)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "mcnet: parse server public key")
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, nil, nil, errors.New("mcnet: server public key is not RSA")
	}
	secret, err := GenSharedSecret()
	if err != nil {
		return nil, nil, nil, err
	}
	encSecret, err := rsa.EncryptPKCS1v15(rand.Reader, rsaPub, secret)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "mcnet: encrypt shared secret")
	}
	encToken, err := rsa.EncryptPKCS1v15(rand.Reader, rsaPub, verifyToken)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "mcnet: encrypt verify token")
	}
	enc, err := NewCFB8Encrypter(secret)
	if err != nil {
		return nil, nil, nil, err
	}
	return enc, secret, &HandshakeResponse{SharedSecret: encSecret, VerifyToken: encToken}, nil
}
