// Package hashing computes the MD5 checksums blocklists-aggregator uses to
// identify feed bodies and to skip rewriting unchanged snapshots.
//
//	proxy := hashing.NewMD5Reader(resp.Body)
//	body, _ := io.ReadAll(proxy)
//	fmt.Printf("Downloaded %d bytes, MD5: %s\n", len(body), proxy.Checksum())
//
//	lines := hashing.NewLineDigest()
//	lines.Add("192.0.2.0/24")
//	fmt.Println(lines.Checksum())
package hashing
