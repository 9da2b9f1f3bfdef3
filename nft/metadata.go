package nft

import (
	"encoding/json"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Metadata is the JSON document a token URI points to.
type Metadata struct {
	Image       string `json:"image"`
	Price       string `json:"price"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BuildMetadataRef encodes meta and returns the ipfs:// URI of its raw
// CIDv1 together with the encoded bytes. Nothing is uploaded.
func BuildMetadataRef(meta *Metadata) (string, []byte, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", nil, err
	}
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", nil, err
	}
	return "ipfs://" + cid.NewCidV1(cid.Raw, mh).String(), data, nil
}
