package workspace

import (
	"fmt"

	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/UXDProtocol/anchor-comp/pkg/idl"
	"github.com/gagliardetto/solana-go"
)

// External programs invoked through CPI by workspace programs. Their IDs
// differ between development (localnet, devnet) and production (mainnet)
// builds.
var externalPrograms = map[string]map[cluster.Cluster]solana.PublicKey{
	"mangomarketsv3": development(
		solana.MustPublicKeyFromBase58("4skJ85cdxQAFVKbcGgfun8iZPL7BadVYXG3kGEGkufqA"),
		solana.MustPublicKeyFromBase58("mv3ekLzLbnVPNxjSKvqBpU3ZeZXPQdEC3bp5MDEBG68"),
	),
	"splgovernance": development(
		solana.MustPublicKeyFromBase58("GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"),
		solana.MustPublicKeyFromBase58("GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"),
	),
	"spltoken": development(solana.TokenProgramID, solana.TokenProgramID),
	"marinadefinance": development(
		solana.MustPublicKeyFromBase58("MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD"),
		solana.MustPublicKeyFromBase58("MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD"),
	),
}

func development(dev, prod solana.PublicKey) map[cluster.Cluster]solana.PublicKey {
	return map[cluster.Cluster]solana.PublicKey{
		cluster.Localnet: dev,
		cluster.Devnet:   dev,
		cluster.Mainnet:  prod,
	}
}

// ExpectedProgramID returns the ID the external program is deployed at on
// the given cluster. false is returned for unknown programs and clusters.
func ExpectedProgramID(name string, c cluster.Cluster) (solana.PublicKey, bool) {
	ids, ok := externalPrograms[idl.Normalize(name)]
	if !ok {
		return solana.PublicKey{}, false
	}
	id, ok := ids[c]
	return id, ok
}

// CheckProgramID returns ErrWrongProgramID if the program is a known external
// one and the ID doesn't match the one expected for the cluster.
func CheckProgramID(name string, c cluster.Cluster, id solana.PublicKey) error {
	expected, ok := ExpectedProgramID(name, c)
	if ok && !expected.Equals(id) {
		return fmt.Errorf("%w: %s on %s is %s, expected %s", ErrWrongProgramID, name, c, id, expected)
	}
	return nil
}
