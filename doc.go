// Package pkgpush uploads package artifacts to a Packagist-compatible
// registry, signing every request with the registry's HMAC-SHA256
// authorization scheme.
//
// # Key Components
//
//   - Client: the two registry operations, artifact upload and package
//     metadata fetch, plus the Push orchestration combining them
//   - Signer: request canonicalization and HMAC computation producing the
//     Authorization header value
//   - Verifier: the server side of the scheme, used by the registrytest
//     package and by services accepting signed requests
//
// # Example Usage
//
//	client, err := pkgpush.New("https://packagist.com", pkgpush.Credentials{
//	    Key:    apiKey,
//	    Secret: apiSecret,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Push(ctx, pkgpush.PushOptions{
//	    Package:  "acme/widgets",
//	    Artifact: artifactBytes,
//	    FileName: "widgets-1.2.0.zip",
//	})
//
// The signature scheme is a cross-system wire contract: the registry
// recomputes the signature independently from the received parameters, so the
// canonicalization here must match the server byte for byte. Percent-encoding
// uses the RFC 3986 unreserved set with uppercase hex digits, parameter names
// sort by ordinal byte comparison, and request bodies enter the signature as
// raw bytes. See Signer and BuildBaseString for the exact rules.
//
// See the archive package for building artifacts, the config package for
// credential resolution, and the registrytest package for an in-process
// registry to test against.
package pkgpush
