/*
Package paillier implements the threshold variant of the Paillier
cryptosystem with safe-prime moduli.

The private exponent d satisfies d = 1 mod n and d = 0 mod m where m = p'q'
for the safe primes p = 2p'+1 and q = 2q'+1. It is shared with a Shamir
polynomial over Z_{nm}. A trustee computes the partial decryption
c^(delta*s_i) with delta = l!, and any threshold of them are combined with
integral Lagrange coefficients into (1+n)^(delta^2 * x), from which x is read
off.

Ciphertexts are plain integers in [0, n^2). The homomorphic operations live on
the public key; everything above this package wraps them in typed values.
*/
package paillier
