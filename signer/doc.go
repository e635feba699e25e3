/*
Package signer authenticates messages, API requests and URLs with
HMAC-SHA256 over a 32-byte shared key.

# Wire format

A signature is base64(HMAC-SHA256(key, "{unix_ts}.{message}")) sent next to
the plaintext timestamp. Nonce signatures bind "{message}:{ts}:{nonce}"
through the same construction. Signature.Encode gives the JSON form:

	{"signature":"0sBA...","timestamp":1700000000,"nonce":null}

Requests are signed over METHOD|path[|?query][|body]. Signed URLs append
"&signature=<percent-encoded mac>&timestamp=<ts>" to a percent-encoded query.

# Verification

Verification first checks |now - ts| against the window and returns
ErrSignatureExpired outside it. A MAC mismatch is a false result, not an
error. MACs are compared with hmac.Equal.

	sig, err := signer.Sign("amount=100&to=acct", key)
	ok, err := sig.Verify("amount=100&to=acct", key, 5)

The signer keeps no state. ReplayGuard adds single use for nonce signatures
on top of a cache.Cache, memory or Redis.

# Global instance

	signer.Init() // reads BEAVER_TRUST_SIGNER_SECRET_KEY
	k, err := signer.Service()
	sig, err := k.SignWithNonce(body)
*/
package signer
