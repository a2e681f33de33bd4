// Package audio plays notification sounds. It decodes WAV, OGG, and MP3
// files through the beep library, caches decoded buffers, and maps
// urgency levels to the sounds configured for them.
package audio
