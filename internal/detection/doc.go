// Package detection locates bananas in an image.
//
// The package defines the Detection and Box types, the Detector interface the
// rest of the pipeline depends on, postprocessors that filter a detection list,
// and three interchangeable backends:
//
//   - ONNX: a YOLOv8 model exported to ONNX and run with ONNX Runtime
//   - Remote: an inference server reached over a websocket
//   - ColorBlob: a model-free detector that groups banana-colored pixels
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Box (X1, Y1) is inclusive, (X2, Y2) is exclusive when used as a crop
//
// # Class Taxonomy
//
// Class ids come from the model. The banana model used by this project reports
// bananas as class 0; the colorblob backend always reports class 0.
//
// # Thread Safety
//
// All backends are safe for concurrent use. The ONNX backend keeps a pool of
// sessions so that concurrent callers never share tensors; the remote backend
// serializes calls on its single connection.
package detection
