/*
Package ordinos implements threshold-encrypted tallying for verifiable
elections.

A set of trustees holds Shamir shares of a threshold Paillier key. Election
rules work on encrypted tallies through an arithmetic black box (package abb)
which offers encryption, distributed decryption, homomorphic addition and
constant multiplication, and the secure multiplication, equality and
greater-or-equal protocols of package sublinear. Every multi-party operation
is a protocol (package protocol) that runs once on each trustee; the runner
checks that all trustees agree on the output.

The root package only holds what every other package shares: the error
taxonomy and the suite used to (un)marshal network messages.
*/
package ordinos
