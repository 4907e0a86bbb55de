// Package seqprep prepares jagged per-user event sequences for a
// sequence-transduction model: contextual features are slot-projected and
// prepended ahead of MLP-transformed content embeddings, with offset and
// length bookkeeping recomputed for the merged sequence.
//
// Quick start:
//
//	p, err := seqprep.New(64, 64,
//	    seqprep.WithFeature("user_profile", 1, 0),
//	    seqprep.WithSeed(42),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, _ := p.Forward(seqprep.Batch{ /* lengths, embeddings, payloads */ })
//	fmt.Println(out.Lengths, out.Offsets)
//
// A Preprocessor is safe for concurrent Forward calls; its parameters are
// fixed at construction. Create once, reuse across batches.
package seqprep
