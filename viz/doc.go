// Package viz renders the PNG figures served by the web application:
// the annotated confusion-matrix heatmap and the projected 3-D scatter of
// the weight demo. Rendering is done with gonum/plot; any panic raised by
// the plotting code is returned as an error.
package viz
