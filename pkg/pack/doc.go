/*
Package pack runs the packing pipeline for a single executable and reports its progress.

A Job reads the input, classifies it, compresses and encrypts it with fresh key material, synthesizes a stub program around the result and builds that stub into the output artifact.
Each stage sends one Event with a non-decreasing percent on the channel returned by NewJob.
The last Event is always terminal, has a percent of 100 and carries a Result that says whether the Job succeeded and why not if it didn't.
*/
package pack
