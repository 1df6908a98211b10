// Command genkey generates an X25519 keypair. Publish the public key to the
// directory; encryption and decryption happen outside the messenger with the
// tool of your choice.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

func main() {
	var priv [curve25519.ScalarSize]byte
	if _, err := rand.Read(priv[:]); err != nil {
		panic(err)
	}

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Public key (base64):  %s\n", base64.StdEncoding.EncodeToString(pub))
	fmt.Printf("Private key (base64): %s\n", base64.StdEncoding.EncodeToString(priv[:]))
}
