// identity.go - Binds the message bus's TLS handshake to a node's
// long-term Ed25519 identity, so a peer connection can be authenticated
// against swarm.Directory rather than trusted on TCP address alone.
// Copyright (C) 2024  The Beldex Project.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package bus

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/beldex-network/storage-server/core/keys"
)

// identityBindingOID tags the X.509 extension carrying the Ed25519
// signature that binds a bus TLS leaf certificate to its holder's
// long-term node identity. It is not a registered OID; it only needs to
// be unambiguous within certificates this node generates and parses
// itself.
var identityBindingOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 54793, 1, 1}

const identityCertValidity = 10 * 365 * 24 * time.Hour

// NewIdentityCertificate builds a fresh, in-memory self-signed TLS
// certificate for the bus's mutual-TLS handshake. The certificate's
// CommonName is the hex Ed25519 identity, and it carries an extension
// holding ed25519Sec's signature over the certificate's own public key,
// so a verifier who trusts nothing but the certificate bytes can still
// confirm that whoever presented it holds the matching Ed25519 secret
// key. It is generated fresh per process rather than persisted: the bus
// listener only needs to prove identity for the lifetime of a
// connection, and rotating it on restart costs nothing.
func NewIdentityCertificate(ed25519Sec keys.Ed25519SecKey) (tls.Certificate, error) {
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	spki, err := x509.MarshalPKIXPublicKey(&leafKey.PublicKey)
	if err != nil {
		return tls.Certificate{}, err
	}
	sig := ed25519.Sign(ed25519Sec.StdPrivateKey(), spki)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: ed25519Sec.Public().Hex()},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(identityCertValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		ExtraExtensions: []pkix.Extension{
			{Id: identityBindingOID, Value: sig},
		},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &leafKey.PublicKey, leafKey)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: leafKey}, nil
}

// verifyIdentityCert checks that rawCerts[0] carries a valid Ed25519
// binding signature and returns the identity it is bound to. It does not
// consult any certificate chain or trust store: the binding signature
// is the entire trust anchor.
func verifyIdentityCert(rawCerts [][]byte) (keys.Ed25519PubKey, error) {
	if len(rawCerts) == 0 {
		return keys.Ed25519PubKey{}, errors.New("bus: peer presented no certificate")
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return keys.Ed25519PubKey{}, fmt.Errorf("bus: malformed peer certificate: %w", err)
	}

	claimed := keys.ParseEd25519PubKey(cert.Subject.CommonName)
	if claimed.IsZero() {
		return keys.Ed25519PubKey{}, errors.New("bus: peer certificate names no recognizable identity")
	}

	var sig []byte
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(identityBindingOID) {
			sig = ext.Value
			break
		}
	}
	if sig == nil {
		return keys.Ed25519PubKey{}, errors.New("bus: peer certificate carries no identity binding")
	}

	spki, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return keys.Ed25519PubKey{}, err
	}
	if !ed25519.Verify(ed25519.PublicKey(claimed.Bytes()), spki, sig) {
		return keys.Ed25519PubKey{}, fmt.Errorf("bus: identity binding signature does not match claimed identity %s", hex.EncodeToString(claimed.Bytes()))
	}
	return claimed, nil
}
