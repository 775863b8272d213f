package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/desertthunder/tracklake/internal/models"
)

// fingerprintSeparator joins attribute tokens before hashing.
const fingerprintSeparator = "||"

// RowHash computes the content fingerprint over a row's mutable attributes:
// name, duration, explicit flag, popularity, preview URL, album id and
// primary artist id, in that order. Load timestamp, the artist tail and the
// album sub-attributes are not part of the fingerprint.
//
// Missing string values normalize to the empty token, so two rows that agree
// field-for-field always produce identical digests. The digest is a
// 32-character lowercase hex MD5.
func RowHash(row models.NormalizedRow) string {
	tokens := []string{
		row.TrackName,
		strconv.Itoa(row.DurationMS),
		strconv.FormatBool(row.IsExplicit),
		strconv.Itoa(row.Popularity),
		row.PreviewURL,
		row.AlbumID,
		row.PrimaryArtistID,
	}

	sum := md5.Sum([]byte(strings.Join(tokens, fingerprintSeparator)))
	return hex.EncodeToString(sum[:])
}
