// Package tilesplit splits side-by-side stereo JPEGs into left and right tiles.
//
// Sources must be 16:10 or 3:2. The image is center-cropped toward 16:10 and cut
// into two equal halves. When the source is an Ultra HDR JPEG/R container the gain
// map is cropped consistently with the visible image and each tile is assembled
// into a new standalone container with fresh XMP and MPF metadata. Other inputs
// are cropped and re-encoded as plain images.
package tilesplit
