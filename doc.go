// Package bowgo provides an embedded bag-of-visual-words retrieval engine
// for Go.
//
// A Catalog quantizes image descriptors against a fixed visual vocabulary,
// maintains incremental TF-IDF corpus statistics, and ranks every stored
// document by weighted distance:
//
//   - Exact or tree-based approximate quantization, selected by vocabulary size
//   - Incremental IDF updates in O(K) per insert, never a corpus rescan
//   - Cosine and L1 distance over lazily weighted TF-IDF vectors
//   - Min-rule fusion of rankings across descriptor modalities
//   - Snapshot persistence to files and blob stores (local, S3, MinIO)
//
// # Quick Start
//
// Build a catalog over a vocabulary, add documents, query:
//
//	ctx := context.Background()
//
//	v, _ := vocab.NewVocabulary(words) // K visual words, D dims each
//	catalog, _ := bowgo.New(v)
//
//	_ = catalog.Add(ctx, "street.jpg", descriptors)
//
//	matches, _ := catalog.Query(ctx, queryDescriptors, func(o *bowgo.QueryOptions) {
//	    o.Limit = 10
//	})
//	for _, m := range matches {
//	    fmt.Println(m.Key, m.Distance)
//	}
//
// Streaming queries support early termination:
//
//	for match, err := range catalog.QueryStream(ctx, queryDescriptors) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if match.Distance > threshold {
//	        break
//	    }
//	    process(match)
//	}
//
// # Modality Fusion
//
// Separate catalogs per descriptor family fuse into one ranking:
//
//	mc := bowgo.NewMultiCatalog()
//	_ = mc.Attach("sift", siftCatalog)
//	_ = mc.Attach("colornames", colorCatalog)
//
//	matches, _ := mc.Query(ctx, map[string][][]float32{
//	    "sift":       siftDescriptors,
//	    "colornames": colorDescriptors,
//	})
//
// # Persistence
//
// Catalogs snapshot to files or any BlobStore:
//
//	_ = catalog.SaveToFile("catalog.bow")
//	restored, _ := bowgo.LoadFromFile("catalog.bow")
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("catalogs/"))
//	_ = catalog.SaveToBlob(ctx, store, "city-center.bow")
package bowgo
