// Package classify maps node names to hardware-generation groups.
//
// A Classifier holds an ordered list of prefix rules. Classify walks the list
// and returns the label of the first rule whose prefix matches the node name,
// or the fallback label ("Other" unless configured) when none match. New
// naming conventions are added as configuration, never as code.
package classify
