// Package imaging provides the image plumbing of the ripeness pipeline.
//
// It loads photographs into fixed-size RGBA canvases, lists and saves image
// files, crops detection regions and converts pixels to the 8-bit hue scale
// used by the ripeness rule.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Canvas
//
// Every photograph is resized to exactly the configured canvas size (800x600
// by default) without preserving the aspect ratio, then converted to
// *image.RGBA so that drawing can happen in place. EXIF orientation is applied
// before resizing.
//
// # Hue Scale
//
// Hue is reported on the 8-bit scale used by OpenCV: degrees divided by two and
// rounded to the nearest integer, giving values in [0,179]. A rounded hue of
// 180 wraps to 0. Achromatic pixels have hue 0.
//
// # Thread Safety
//
// CanvasCache is safe for concurrent use. Canvases returned from the cache are
// shared; callers that draw on them must copy first (see CloneCanvas).
package imaging
