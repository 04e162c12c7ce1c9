/*
Package abb defines the arithmetic black box used by election rules.

Values are either a Cipher, an encryption under the session key, or a Const,
a public plaintext. The ABB interface combines them: additions and
multiplications by constants are computed locally, while multiplications of
two ciphers, equality and comparison tests are delegated to a Suite running a
protocol with all the other trustees. Decryption always involves every
trustee.

Two implementations exist: Paillier, backed by a threshold Paillier key share
and a network channel, and Plain, which computes everything in the clear and
is meant to test the consumers of the ABB.
*/
package abb
