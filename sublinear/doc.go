/*
Package sublinear implements constant-round multiplication, equality and
comparison protocols over threshold Paillier ciphertexts.

Multiplication blinds the left operand with a random value of every trustee.
Each trustee proves in zero knowledge that its contribution is consistent;
the challenge of the proof is derived with blake2b over the statement and the
announcement. A failing proof aborts the protocol with ordinos.ErrProofFailed.

Equality and comparison need precomputed randomness. The records are
generated on first use for a given key and operand width and stored in the
cache file, keyed by the decimal modulus so that a record is never reused for
another key of the same size. A Suite and its storages must be shared by all
trustees of a process, as every trustee has to use the same record.
*/
package sublinear
