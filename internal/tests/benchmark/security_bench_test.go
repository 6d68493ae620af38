package benchmark

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/pkg/crypto/adaptive"
)

// BenchmarkAuthVerify checks that password comparison time does not
// depend on how much of the credential matches.
func BenchmarkAuthVerify(b *testing.B) {
	auth := service.NewAuthenticator("correct-horse-battery-staple")
	cases := map[string][]byte{
		"match":        []byte("correct-horse-battery-staple"),
		"prefix_match": []byte("correct-horse-battery-stapleX"),
		"early_miss":   []byte("Xorrect-horse-battery-staple"),
		"late_miss":    []byte("correct-horse-battery-staplX"),
	}

	for name, credential := range cases {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				auth.Verify(credential)
			}
		})
	}
}

// BenchmarkCipher benchmarks record-sized encryption for each cipher.
func BenchmarkCipher(b *testing.B) {
	key := make([]byte, adaptive.KeySize)
	rand.Read(key)
	ad := []byte("aof")

	for _, ct := range []adaptive.CipherType{adaptive.CipherXChaCha20, adaptive.CipherAESGCM} {
		c, err := adaptive.NewWithType(key, ct)
		if err != nil {
			b.Fatal(err)
		}
		for _, size := range []int{64, 1024, 16 * 1024} {
			plaintext := make([]byte, size)
			rand.Read(plaintext)

			b.Run(fmt.Sprintf("%s/encrypt_%d", ct, size), func(b *testing.B) {
				b.SetBytes(int64(size))
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := c.Encrypt(plaintext, ad); err != nil {
						b.Fatal(err)
					}
				}
			})

			sealed, _ := c.Encrypt(plaintext, ad)
			b.Run(fmt.Sprintf("%s/decrypt_%d", ct, size), func(b *testing.B) {
				b.SetBytes(int64(size))
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := c.Decrypt(sealed, ad); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkDeriveKey benchmarks HKDF key derivation at AOF open.
func BenchmarkDeriveKey(b *testing.B) {
	secret := []byte("operator-supplied-secret")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := adaptive.DeriveKey(secret, "meshkv aof v1"); err != nil {
			b.Fatal(err)
		}
	}
}
