// Package uhdr is a pure-Go reader and writer of the UltraHDR JPEG/R container.
//
// It splits a container into its primary and gain map JPEG images, recovers the
// gain map metadata from ISO 21496-1 or XMP payloads and decodes both images with
// the standard image/jpeg package. The writer assembles a container from an
// already compressed SDR image and gain map.
package uhdr
